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

package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔁 Every calls fn once per interval until ctx ends. A failing call is
// logged and the loop keeps going.
func Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context) error) error {
	if interval <= 0 {
		return errors.Errorf("interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := zerolog.Ctx(ctx)
	logger.Info().Dur("interval", interval).Msg("periodic trigger started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("periodic trigger stopped")
			return nil
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Error().Err(err).Msg("periodic trigger failed")
			}
		}
	}
}
