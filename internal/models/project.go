package models

import "fmt"

// RDBMS identifies the kind of target database a project connects to.
type RDBMS string

const (
	RDBMSMySQL  RDBMS = "mysql"
	RDBMSSQLite RDBMS = "sqlite"
)

// ParseRDBMS parses a user supplied database kind.
func ParseRDBMS(s string) (RDBMS, error) {
	switch RDBMS(s) {
	case RDBMSMySQL, RDBMSSQLite:
		return RDBMS(s), nil
	case "MySQL":
		return RDBMSMySQL, nil
	}
	return "", fmt.Errorf("unsupported rdbms %q (expected mysql or sqlite)", s)
}

// Project is a saved connection to a target database.
// For SQLite projects Schema holds the database file path.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	RDBMS    RDBMS  `json:"rdbms"`
	User     string `json:"user"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Schema   string `json:"schema"`
}

// Validate checks the fields required to open a connection.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project name is required")
	}
	if _, err := ParseRDBMS(string(p.RDBMS)); err != nil {
		return err
	}
	if p.Schema == "" {
		return fmt.Errorf("project schema is required")
	}
	if p.RDBMS == RDBMSMySQL && p.Host == "" {
		return fmt.Errorf("project host is required for mysql")
	}
	return nil
}
