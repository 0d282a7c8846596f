// Package appfs embeds the static files of the app: database migrations and templates.
package appfs

import "embed"

//go:embed migrations/*.sql all:templates
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	ReportTemplates   = "templates/report/*.gohtml"
)
