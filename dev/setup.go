package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "ecourts-backend/dev/env"
)

func createDb(filename, schema string) error {
	dbPath, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(dbPath)
	if err == nil {
		fmt.Println("database already created at", dbPath)
		return nil
	}

	fmt.Println("creating database at", dbPath)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(schema)
	return err
}

const portalConfigTemplate = `{
  // a district court site with the case status search, ex. https://ernakulam.dcourts.gov.in
  base_url: "",
  // optional, defaults to the first court complex listed
  court_complex: "",
}
`

func createPortalConfig() error {
	configPath, err := devenv.GetStateFilePath("portal_config.json5")
	if err != nil {
		return err
	}
	_, err = os.Stat(configPath)
	if err == nil {
		return nil
	}
	fmt.Println("writing portal config template to", configPath)
	return os.WriteFile(configPath, []byte(portalConfigTemplate), 0666)
}

func PrintConfigLocations() {
	slog.Info("tests against a live court portal are skipped until base_url is filled in at dev/.state/portal_config.json5, look at the skipped tests in `go test -v` for details.")
}
