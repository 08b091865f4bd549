// Package fileutil creates the files serverproc writes: per-server output
// logs and certificates handed to server programs.
package fileutil
