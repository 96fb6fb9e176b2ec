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

/*
Package status turns job progress into text for people and JSON for tools.

🎯 Purpose:
- Word progress counters and transfer outcomes consistently
- Render the current job for the progress command
- Lay out per-item console lines for the outcome logger

🔍 Example:

	r := status.NewRenderer()
	_ = r.Render(os.Stdout, prog, status.FormatText)

	🟢 running  job 6f1c…
	⏳ Progress: 7/14 (50%)
	💬 Copied: /srv/mirror/Bear Traxs/Logo Tee/tee.png
*/
package status
