package btree

import "errors"

// --- Error Definitions ---

var (
	ErrFileNotFound        = errors.New("index file not found")
	ErrFileExists          = errors.New("index file already exists")
	ErrEndOfFile           = errors.New("end of file")
	ErrBadOpcodes          = errors.New("scan started with non-range operators")
	ErrBadScanrange        = errors.New("low value is greater than high value")
	ErrScanNotInitialized  = errors.New("no scan is currently active")
	ErrIndexScanCompleted  = errors.New("scan exhausted the requested range")
	ErrNoSuchKeyFound      = errors.New("no key in range")
	ErrPageNotPinned       = errors.New("page not pinned")
	ErrUnsupportedDatatype = errors.New("only INTEGER attributes are supported")
	ErrUnsupportedPageSize = errors.New("page size must equal DefaultPageSize, the size LeafCapacity/InteriorCapacity are derived for")
	ErrIO                  = errors.New("i/o error")
	ErrCorrupt             = errors.New("index metadata is corrupt or inconsistent")
)
