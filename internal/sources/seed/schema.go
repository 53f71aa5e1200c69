package seed

// Catalogue is the top-level structure of a seed file. JSON files are
// accepted too since they are valid YAML.
type Catalogue struct {
	Records []RecordEntry `yaml:"records"`
}

// RecordEntry describes one shared record and who owns it.
type RecordEntry struct {
	ID           string       `yaml:"id,omitempty"`
	ProductCode  string       `yaml:"productCode,omitempty"`
	Artist       string       `yaml:"artist"`
	Album        string       `yaml:"album"`
	ReleaseDate  string       `yaml:"releaseDate,omitempty"`
	Genre        string       `yaml:"genre,omitempty"`
	Label        string       `yaml:"label,omitempty"`
	Country      string       `yaml:"country,omitempty"`
	PressingType string       `yaml:"pressingType,omitempty"`
	Notes        string       `yaml:"notes,omitempty"`
	ArtworkRef   string       `yaml:"artworkRef,omitempty"`
	TrackList    []TrackEntry `yaml:"trackList,omitempty"`
	Owners       []OwnerEntry `yaml:"owners,omitempty"`
	BookmarkedBy []string     `yaml:"bookmarkedBy,omitempty"`
}

type TrackEntry struct {
	Title    string `yaml:"title"`
	Duration string `yaml:"duration,omitempty"`
}

// OwnerEntry is one user's copy. AddedAt is RFC 3339 or YYYY-MM-DD.
type OwnerEntry struct {
	UserID        string   `yaml:"userId"`
	Username      string   `yaml:"username,omitempty"`
	Condition     string   `yaml:"condition,omitempty"`
	PurchasePrice *float64 `yaml:"purchasePrice,omitempty"`
	Notes         string   `yaml:"notes,omitempty"`
	AddedAt       string   `yaml:"addedAt,omitempty"`
	Rating        int      `yaml:"rating,omitempty"`
}
