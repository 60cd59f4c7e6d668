package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var (
	pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)
	datePartitionPattern = regexp.MustCompile(`^date=\d{4}-\d{2}-\d{2}$`)
)

// BuildExportPath lays out export objects as
// <prefix>/<database>/<collection>/date=YYYY-MM-DD/<exportID>.parquet.
func BuildExportPath(prefix, database, collection string, exportedAt time.Time, exportID string) (string, error) {
	if err := validatePathComponent(database, "database name"); err != nil {
		return "", err
	}
	if err := validatePathComponent(collection, "collection name"); err != nil {
		return "", err
	}
	if err := validatePathComponent(exportID, "export id"); err != nil {
		return "", err
	}
	prefix, err := cleanExportPrefix(prefix)
	if err != nil {
		return "", err
	}

	ts := exportedAt.UTC()
	return path.Join(
		prefix,
		database,
		collection,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		exportID+".parquet",
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}

// ValidateExportKey accepts only keys BuildExportPath could have produced
// under prefix.
func ValidateExportKey(prefix, key string) error {
	prefix, err := cleanExportPrefix(prefix)
	if err != nil {
		return err
	}
	rest := key
	if prefix != "" {
		var ok bool
		rest, ok = strings.CutPrefix(key, prefix+"/")
		if !ok {
			return fmt.Errorf("export key %q is outside %q", key, prefix)
		}
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 4 {
		return fmt.Errorf("invalid export key: %q", key)
	}
	if err := validatePathComponent(parts[0], "database name"); err != nil {
		return err
	}
	if err := validatePathComponent(parts[1], "collection name"); err != nil {
		return err
	}
	if !datePartitionPattern.MatchString(parts[2]) {
		return fmt.Errorf("invalid export date partition: %q", parts[2])
	}
	exportID, ok := strings.CutSuffix(parts[3], ".parquet")
	if !ok {
		return fmt.Errorf("export key %q is not a parquet object", key)
	}
	return validatePathComponent(exportID, "export id")
}

func cleanExportPrefix(prefix string) (string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "", nil
	}
	for _, part := range strings.Split(prefix, "/") {
		if err := validatePathComponent(part, "export prefix"); err != nil {
			return "", err
		}
	}
	return prefix, nil
}
