package apierror

// Error type URIs following the urn:quill:error:* pattern.
// These are used as the "type" field in RFC 9457 Problem Details.
const (
	// TypeValidation indicates a malformed draft entry (400)
	TypeValidation = "urn:quill:error:validation"

	// TypeNotFound indicates the requested entry was not found (404)
	TypeNotFound = "urn:quill:error:not_found"

	// TypeCorruptRecord indicates a record failed its integrity check (422)
	TypeCorruptRecord = "urn:quill:error:corrupt_record"

	// TypeQuotaExceeded indicates the storage medium is full (507)
	TypeQuotaExceeded = "urn:quill:error:quota_exceeded"

	// TypeMigrationFailed indicates a schema upgrade step errored (422)
	TypeMigrationFailed = "urn:quill:error:migration_failed"

	// TypeBadRequest indicates a malformed or invalid request (400)
	TypeBadRequest = "urn:quill:error:bad_request"

	// TypeInternal indicates an unexpected error (500)
	TypeInternal = "urn:quill:error:internal"
)

// Titles for each error type - human-readable summaries
const (
	TitleValidation      = "Validation Error"
	TitleNotFound        = "Entry Not Found"
	TitleCorruptRecord   = "Record Integrity Failure"
	TitleQuotaExceeded   = "Storage Full"
	TitleMigrationFailed = "Schema Migration Failed"
	TitleBadRequest      = "Bad Request"
	TitleInternal        = "Internal Error"
)
