package logging

// Standardized field names for structured logging.
const (
	FieldOperation     = "operation"
	FieldKind          = "entity_kind"
	FieldLabel         = "label"
	FieldEntityID      = "entity_id"
	FieldParentID      = "parent_id"
	FieldTransactionID = "transaction_id"
	FieldDraftID       = "draft_id"
	FieldUserID        = "user_id"
	FieldMode          = "mode"
	FieldPage          = "page"
	FieldCount         = "count"
	FieldStatus        = "status"
	FieldStage         = "stage"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
	FieldRequestID     = "request_id"
	FieldFile          = "file_path"
	FieldOutputFile    = "output_file"
)
