package storage

// Store is durable key-value storage for whole JSON documents. Every
// mutation writes the full document for its key; there are no field-level
// updates and no transactions. A single in-process writer is assumed.
type Store interface {
	// Get returns the stored document for key, or ok=false if absent.
	Get(key string) (value []byte, ok bool, err error)
	// Set stores the document for key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes the document for key. Deleting an absent key is not
	// an error.
	Delete(key string) error
	Close() error
}

// Logical keys used by the core. Each key holds one whole JSON document.
const (
	KeyHistory       = "wtm_history"
	KeySettings      = "wtm_settings"
	KeyQueue         = "wtm_queue"
	KeyCustomLibrary = "wtm_custom_library"
)
