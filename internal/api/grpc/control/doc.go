// Package control exposes the simulation clock and aggregate queries over gRPC.
//
// The service is described by hand with protobuf well-known types as messages,
// so no generated code is needed on either side.
package control
