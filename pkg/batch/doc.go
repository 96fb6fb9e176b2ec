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
Package batch drives a mirror job from creation to completion.

	Start ──► build work list ──► persist job + queue ──► RunChunk
	                                                         │
	          ┌──────────── reschedule after Delay ◄─────────┤ queue not empty
	          ▼                                              │
	       RunChunk ──► up to ChunkSize items ──► Executor   │ queue empty
	                                                         ▼
	                                                  running=false, "Done"

🎯 Every chunk re-reads the job and its queue from the store, so a chunk may
run in a different process than the one that started the job. A chunk for a
job that was canceled or replaced is a no-op.

🔒 Chunks for the same job never overlap: calls inside one process are
collapsed with singleflight, and a lease key in the store guards against
other processes sharing the same store.

🛑 Cancel removes the job and its queue. A chunk already in flight notices
before its next item and stops without writing anything back.
*/
package batch
