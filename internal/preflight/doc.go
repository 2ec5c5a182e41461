// Package preflight provides readiness checks for the filesystem paths,
// binaries, and remote endpoint that parley depends on.
//
// These checks run in two contexts:
//   - The recording service calls RunAll before converting audio. If any
//     check fails, processing stops before any work is done.
//   - The CLI "parley status" command renders every result, including the
//     binary checks from CheckSystemDeps.
package preflight
