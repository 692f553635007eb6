// Package download fetches remote archives and unpacks them below a base
// directory.
//
// Every archive URL maps to a fixed directory:
//
//	<base>/<host>/<url path>/package
//
// so https://github.com/owner/repo/archive/main.zip unpacks into
// <base>/github.com/owner/repo/archive/main.zip/package. The layout is
// what lets a caller derive a stable package id from an unpacked path.
//
// A [Downloader] fetches each URL at most once at a time: concurrent
// callers share one fetch. An unpacked directory that already exists is
// reused. When a freshness index is configured, entries older than the
// TTL are revalidated with If-None-Match against the stored ETag.
//
// Zip, gzip-compressed tar and plain tar archives are recognized by their
// leading bytes. An archive whose entries all live under one top-level
// directory (as GitHub and GitLab archives do) has that directory
// stripped.
package download
