package domain

// CatalogEntry is a known LEGO set seeded from the catalog file.
// Values are kept as the text found in the file; the pipeline only joins on
// Number and reads PackagingType.
type CatalogEntry struct {
	Number        string `gorm:"column:number;type:text;primaryKey" json:"number"`
	SetName       string `gorm:"column:set_name;type:text" json:"set_name"`
	Theme         string `gorm:"column:theme;type:text" json:"theme"`
	YearFrom      string `gorm:"column:year_from;type:text" json:"year_from"`
	PackagingType string `gorm:"column:packaging_type;type:text" json:"packaging_type"`
	LaunchDate    string `gorm:"column:launch_date;type:text" json:"launch_date"`
}

// TableName returns the database table name for CatalogEntry.
func (CatalogEntry) TableName() string {
	return "legosets"
}
