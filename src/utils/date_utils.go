package utils

import (
	"log"
	"time"
)

const (
	// FolderDateLayout is the date folder segment of raw dump paths (<raw-root>/<YYYYMMDD>/...).
	FolderDateLayout = "20060102"
	// CompactDateLayout is the two-digit-year date embedded in raw dump file names.
	CompactDateLayout = "060102"
)

// ParseFolderDate parses a YYYYMMDD path segment.
// Logs an error and returns zero time if parsing fails.
func ParseFolderDate(dateStr string) time.Time {
	t, err := time.Parse(FolderDateLayout, dateStr)
	if err != nil {
		log.Printf("Error parsing date '%s' with format '%s': %v. Returning zero time.", dateStr, FolderDateLayout, err)
		return time.Time{}
	}
	return t
}

// CompactDate renders a time as the YYMMDD segment used in raw dump file names.
func CompactDate(t time.Time) string {
	return t.Format(CompactDateLayout)
}
