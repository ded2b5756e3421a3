// Package database stores audit history in SQLite.
//
// Every finished SiteReport is saved as one row in site_reports, holding
// the full report as JSON plus the headline numbers, and one row per page
// in pages. The page rows make history queries cheap: score trends for a
// URL and the pages whose content changed between two audits are answered
// without decoding stored reports.
//
// The database is a single file (modernc.org/sqlite, no cgo) under the
// XDG data directory by default.
package database
