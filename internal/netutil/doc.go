// Package netutil allocates ephemeral loopback TCP ports for supervised
// servers. PortRegistry asks the kernel for a free port, closes the listener
// so the subprocess can bind it, and remembers the port until Release so two
// live servers in the same test binary never share one.
package netutil
