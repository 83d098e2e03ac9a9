// Package crawler discovers a department's catalog pages and fetches every
// listed course's English and Japanese detail pages with bounded
// concurrency, assembling one Course per id.
package crawler
