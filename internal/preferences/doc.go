// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

/*
Package preferences derives each active user's preferred categories from
their recent engagement and stores them in users.preferences.

For every user with interactions inside the lookback window the Refresher
sends the per-category view, like and comment counts to an Ollama model
constrained to a JSON schema, validates the answer against the platform
category list and writes it back. The stored preferences take precedence
over interaction history when recommending for a user.

A user whose model answer is missing, malformed or outside the category
list keeps their previous preferences; the run continues with the next
user.
*/
package preferences
