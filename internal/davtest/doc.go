// Package davtest runs davclient.Storage against the embedded DAV server
// without a socket. Each test gets a freshly reset server over its own
// temporary directory, and every client request is dispatched in-process.
//
// Tests using a Fixture cannot run in parallel: the server keeps its
// settings, metrics and open stores in process-wide state.
package davtest
