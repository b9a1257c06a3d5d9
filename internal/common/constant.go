package common

const (
	// FileNameHeaderName carries the original file name on binary PATCH
	// requests; the transport body itself is a bare octet stream.
	FileNameHeaderName = "x-ms-file-name"

	// AuthorizationHeaderName is the HTTP header used for bearer tokens.
	AuthorizationHeaderName = "Authorization"

	// BindSuffix marks a relationship reference expression in a create payload,
	// e.g. "project@odata.bind": "/projects(<id>)".
	BindSuffix = "@odata.bind"

	// CreatedOnAttribute is the server-maintained creation timestamp column.
	CreatedOnAttribute = "createdon"
)

// LookupValueAttribute returns the name under which the store exposes the raw
// id of a lookup attribute, e.g. "project" -> "_project_value".
func LookupValueAttribute(attr string) string {
	return "_" + attr + "_value"
}
