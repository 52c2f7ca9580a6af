package sitearchive

// PathRow is one row of the sitemap database's paths table.
type PathRow struct {
	Path        string  `gorm:"primaryKey;size:2048"`
	Status      int     `gorm:"not null"`
	Location    *string `gorm:"type:text"`
	ContentType *string `gorm:"type:text"`
	Filename    string  `gorm:"type:text;not null"`
}

func (PathRow) TableName() string { return "paths" }

func (r PathRow) entry() SiteEntry {
	e := SiteEntry{Status: r.Status, Filename: r.Filename}
	if r.Location != nil {
		e.Location = *r.Location
	}
	if r.ContentType != nil {
		e.ContentType = *r.ContentType
	}
	return e
}

func newPathRow(url string, e SiteEntry) PathRow {
	row := PathRow{Path: url, Status: e.Status, Filename: e.Filename}
	if e.Location != "" {
		loc := e.Location
		row.Location = &loc
	}
	if e.ContentType != "" {
		ct := e.ContentType
		row.ContentType = &ct
	}
	return row
}
