// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the mediamirror configuration.
//
// 	            +-------------+
// 	            |   Config    |
// 	            | (Settings)  |
// 	            +------+------+
// 	                   |
// 	      +------------+------------+
// 	      |            |            |
// 	+-----+----+ +-----+----+ +-----+----+
// 	|   YAML   | |   JSON   | |   HCL    |
// 	|  Parser  | |  Parser  | |  Parser  |
// 	+----------+ +----------+ +----------+
//
// 🎯 Parsers register themselves by file extension. Load picks one, decodes
// strictly (unknown fields are errors), then Validate resolves relative paths
// against the config file's directory and fills every unset tunable with its
// default.
//
// 🔍 Example:
//
// 	destination: /srv/mirror
// 	site: Bear Traxs
// 	catalog:
// 	  path: catalog.yaml
// 	uploads:
// 	  base_url: https://shop.example.com/wp-content/uploads
// 	  base_dir: /var/www/html/wp-content/uploads
// 	batch:
// 	  delay: 5s
// 	exclude:
// 	  - "**/*.psd"
package config
