package constants

const (
	MsgMappingNotFound   = "Fitment mapping not found"
	MsgProductNotFound   = "Referenced product not found"
	MsgVersionConflict   = "Mapping was modified concurrently, retry with fresh data"
	MsgInvalidRequest    = "Invalid request body"
	MsgImportUnreadable  = "Import file could not be read"
	MsgImportJobNotFound = "Import job not found"
	MsgImportBusy        = "Too many imports are running, try again shortly"
	MsgStoreUnavailable  = "Persistence layer is unavailable"
)
