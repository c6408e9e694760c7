// Package services implements the driving ports: projects, documents,
// indexing, retrieval, reports and settings. Services reach storage,
// providers and queues only through the driven ports, so every adapter
// can be swapped for a memory double in tests.
package services
