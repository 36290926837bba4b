// Package logtail reads the tail of lookout's own log file.
//
// The dashboard owns the terminal, so the sync engine logs to a file.
// "lookout logs" uses Read to print the last lines of that file, optionally
// filtered by level:
//
//	lines, err := logtail.Read(cfg.LogFile, 200, log.WarnLevel)
//
// Read scans the file once and keeps a ring of the last maxLines matching
// lines, so memory stays bounded by the requested count rather than the
// file size. Lines without a level token (multi-line values) follow the
// decision made for the record above them.
package logtail
