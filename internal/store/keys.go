package store

import "strings"

const (
	// KeyPrefix namespaces every key written by the store
	KeyPrefix = "vinylib:"

	// KeyAllRecords is the set of all record IDs
	KeyAllRecords = KeyPrefix + "records"
	// KeyAllUsers is the set of all user IDs
	KeyAllUsers = KeyPrefix + "users"

	// KeyLegacyRecords is the single JSON array written by the legacy
	// whole-collection store
	KeyLegacyRecords = "vinyls"
)

// RecordKey returns the key of a record's metadata document
func RecordKey(id string) string {
	return KeyPrefix + "record:" + id
}

// RecordOwnersKey returns the set of user IDs owning a record
func RecordOwnersKey(recordID string) string {
	return KeyPrefix + "record:" + recordID + ":owners"
}

// OwnershipKey returns the key of one user's ownership fact
func OwnershipKey(recordID, userID string) string {
	return KeyPrefix + "owner:" + recordID + ":" + userID
}

// RecordRatingsKey returns the set of user IDs that rated a record
func RecordRatingsKey(recordID string) string {
	return KeyPrefix + "record:" + recordID + ":ratings"
}

// RatingKey returns the key of one user's rating fact
func RatingKey(recordID, userID string) string {
	return KeyPrefix + "rating:" + recordID + ":" + userID
}

// RecordBookmarkersKey returns the set of user IDs bookmarking a record
func RecordBookmarkersKey(recordID string) string {
	return KeyPrefix + "record:" + recordID + ":bookmarkers"
}

// ProductCodeKey maps a normalized product code to its record ID
func ProductCodeKey(code string) string {
	return KeyPrefix + "productcode:" + code
}

// UserRecordsKey returns the set of record IDs a user owns
func UserRecordsKey(userID string) string {
	return KeyPrefix + "user:" + userID + ":records"
}

// UserBookmarksKey returns the set of record IDs a user bookmarked
func UserBookmarksKey(userID string) string {
	return KeyPrefix + "user:" + userID + ":bookmarks"
}

// BookmarkKey returns the key of a bookmark document
func BookmarkKey(userID, recordID string) string {
	return KeyPrefix + "bookmark:" + userID + ":" + recordID
}

// UserKey returns the key of a user document
func UserKey(id string) string {
	return KeyPrefix + "user:" + id
}

// UserEmailKey maps a lower-cased email to a user ID
func UserEmailKey(email string) string {
	return KeyPrefix + "user:email:" + strings.ToLower(strings.TrimSpace(email))
}

// UserUsernameKey maps a lower-cased username to a user ID
func UserUsernameKey(username string) string {
	return KeyPrefix + "user:username:" + strings.ToLower(strings.TrimSpace(username))
}

// NormalizeProductCode strips spaces and dashes so "0 77774-6446 2 4" and
// "077774644624" identify the same release.
func NormalizeProductCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(code)))
}
