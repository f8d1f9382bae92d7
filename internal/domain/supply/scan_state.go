package supply

// ScanState is the position of an order in the pack/verify/collect protocol.
type ScanState int

const (
	StatePending ScanState = iota
	StateScanOK
	StateLabelOK
	StateCollected
)

// String returns the string representation
func (s ScanState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateScanOK:
		return "scan_ok"
	case StateLabelOK:
		return "label_ok"
	case StateCollected:
		return "collected"
	}
	return "unknown"
}
