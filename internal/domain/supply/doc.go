// Package supply contains the Supply bounded context: marketplace orders grouped
// into shipment batches ("supplies") and the packing protocol applied to them.
//
// Key concepts:
//   - Store: seller account registered at startup
//   - Order: marketplace order normalized from the remote payload
//   - Settings: per-supply access policy and label job snapshot
//   - SupplyOrder: durable join of an order and its supply with scan, label and collect progress
//   - ScanState: Pending -> ScanOK -> LabelOK -> Collected
//   - Partition: deterministic balanced split of orders across employees
//   - Bisector: divide-and-conquer retry isolating failing ids of a batch
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package supply
