// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package models

import "time"

// CategoryStat is one user's recent engagement with one category.
type CategoryStat struct {
	UserID   string
	Username string
	Category string
	Views    int64
	Likes    int64
	Comments int64
}

// Total is the unweighted interaction count used for ordering.
func (c CategoryStat) Total() int64 {
	return c.Views + c.Likes + c.Comments
}

// Preferences is the document stored in users.preferences.
type Preferences struct {
	Categories []string  `json:"categories"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PlatformCategories is the fixed category list users and videos are tagged with.
var PlatformCategories = []string{
	"Entertainment & Pop Culture",
	"Sports & Fitness",
	"Music & Performance Arts",
	"Technology & Gadgets",
	"Education & How-To",
	"News & Current Affairs",
	"Health & Wellness",
	"Food & Cooking",
	"Travel & Exploration",
	"Gaming & Esports",
	"Science & Nature",
	"Finance & Business",
	"Lifestyle & Fashion",
	"Movies & TV Shows",
	"Motivation & Personal Development",
	"Comedy & Fun",
	"Automobiles & Vehicles",
	"Home & DIY",
	"Pets & Animals",
}
