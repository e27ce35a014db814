// Package httputil provides the HTTP plumbing shared by index clients and
// repositories.
//
// # Overview
//
//   - [Download]: fetch a URL into a scoped temporary directory
//   - [Retry]: retry transient failures with exponential backoff
//
// # Downloads
//
// [Download] creates a fresh temporary directory, streams the response body
// into a file named after the last URL path segment and hands the path to a
// callback. The directory is removed when the callback returns, whether it
// succeeded or not:
//
//	err := httputil.Download(ctx, client, url, func(path string) error {
//	    root, err := conv.Load(path)
//	    ...
//	})
//
// A response other than 200 OK is reported as a [*StatusError]. Downloads
// are never retried.
//
// # Retry
//
// [Retry] re-runs a function while it fails with a [RetryableError]. Index
// clients wrap 5xx responses and network errors this way; everything else
// is returned immediately. [RetryWithBackoff] uses 3 attempts starting at a
// one second delay.
package httputil
