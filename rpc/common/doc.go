// Package common provides core data structures and utilities shared by the RPC
// server, the RPC client and the command line tools. It defines the message protocol,
// configuration structures and the logger setup.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//   - Custom logging integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a flexible
//     structure that adapts to different operation types. Includes factory methods
//     for creating the request and response messages.
//
//   - MessageType: Enumeration of all supported operations, grouped into store
//     operations (getItem, setItem, removeItem), flush operations (flush, pending)
//     and control messages.
//
//   - ServerConfig: Configuration of a server, including the shards it serves,
//     the storage backend, the debounce window, network and logging settings.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Factories for Dragonboat's logging system. The text format writes
//     "LEVEL | package | message" lines; the json format writes through zap.
package common
