// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.


package app

import "unicode/utf8"

var (
	// MessageSizeLimit caps the message of a command result. Replies
	// travel as a single broker message, and the broker rejects payloads
	// above 1MB by default.
	MessageSizeLimit = 512 * 1024
)

const truncatedSuffix = "\n[output truncated]"

func capMessage(message string) string {
	if len(message) <= MessageSizeLimit {
		return message
	}
	cut := MessageSizeLimit - len(truncatedSuffix)
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + truncatedSuffix
}
