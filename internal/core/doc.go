// Package core provides the business logic for CSV resource imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any UI, transport or storage layer. It is used by the web
// trigger, the CLI, the directory watcher and tests without modification.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Router: [ParseFile] reads the source and [Route] sends each column to
//     one bucket: core fields, the attachment marker, the tag marker, or
//     metadata.
//   - Importer: [Importer.Import] writes one [RoutedRow] through a
//     [ContentStore]: create the record, then metadata, attachment and tags.
//   - Service: [Service.Run] imports every row in file order and returns a
//     [Report] with the merged error log.
//   - Run guard: [RunGuard] keeps two runs from overlapping.
//
// # Column Routing
//
// The header row decides where each cell goes:
//
//	post_title,post_status,_attachment,_tag,_tag,author
//	Hello,publish,pic.jpg,news,local,Ann
//
// yields Fields{post_title, post_status}, Attachment "pic.jpg",
// Tags ["news", "local"] and Metadata{author: "Ann"}.
//
// # Error Handling
//
// A source that cannot be read aborts the run with a [*FileError]. Every
// other failure is a [*RecordError] scoped to one record and one step; the
// run continues with the next step or row. Errors are collected in order
// into [Report.Errors].
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - RUN001-RUN002: Run errors (already running, nothing to import)
//   - REC, META, ATT, TAG: Per-record step failures
//   - FILE001-FILE006: File errors (size, format, access)
//   - DB001-DB006: Database errors (duplicates, constraints, connections)
package core
