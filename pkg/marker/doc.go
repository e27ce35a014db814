// Package marker parses and evaluates PEP 508 environment markers.
//
// # Overview
//
// A marker is the part of a dependency specifier after the ";":
//
//	requests[security] >= 2.8.1 ; python_version < "3.8" and extra == "tls"
//
// [Parse] turns the marker text into a small typed expression tree built from
// [Compare], [And] and [Or] nodes. The tree is never evaluated implicitly;
// callers ask it specific questions:
//
//   - [Extras] reports which optional extra, if any, the marker is
//     conditioned on. Comparisons on other variables (python_version,
//     sys_platform, ...) do not make a marker extra-conditioned.
//   - [Evaluate] decides the marker against a concrete [Environment].
//
// # Normalization
//
// Extra names are compared after PEP 685 normalization, so
// extra == "Dev_Tools" and extra == "dev-tools" are the same condition.
package marker
