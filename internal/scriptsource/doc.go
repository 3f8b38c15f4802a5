// SPDX-License-Identifier: MPL-2.0

// Package scriptsource turns configured script entries into script text.
//
// An entry is fetched when it parses as a URL whose scheme has a registered
// fetcher (http, https and file by default, s3 when an object store is
// configured). Every other entry, including a bare local path, is used
// verbatim as the script body. Fetched content is decoded with the declared
// encoding and rebuilt line by line, each line terminated by a single "\n".
package scriptsource
