package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixProduct   CachePrefix = "PRODUCT_"
	CachePrefixImportJob CachePrefix = "IMPORT_JOB_"
)

// Pagination limits shared by search and history listing.
const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)
