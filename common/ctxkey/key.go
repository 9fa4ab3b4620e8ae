// Package ctxkey names the gin.Context keys shared across middleware and
// controllers, the way one-api's common/ctxkey does.
package ctxkey

const (
	// App names a key for the *app.App aggregate; nothing sets or reads it.
	// router passes *app.App to each handler and middleware constructor as
	// an argument instead.
	App = "app"

	// SystemAPIKey holds the authenticated *model.SystemApiKey for this request.
	// Set in: middleware/auth.Authenticate.
	// Read in: controller (relay access check and RequestLog, model listing).
	SystemAPIKey = "system_api_key"

	// CredentialPosition records where the caller's credential was found
	// (header vs query). Nothing downstream reads it: the header scrubber
	// strips every inbound credential header regardless of position.
	// Set in: middleware/auth.Authenticate.
	CredentialPosition = "credential_position"

	// ExternalID is the caller-supplied "sub" claim from a jwt- credential.
	// Set in: middleware/auth.Authenticate (jwt branch only).
	ExternalID = "external_id"

	// Channel is the caller-supplied "channel" claim from a jwt- credential.
	// Set in: middleware/auth.Authenticate (jwt branch only).
	Channel = "channel"

	// RequestModel is the logical model string as the client wrote it,
	// before alias/provider resolution. Never mutated.
	RequestModel = "request_model"

	// RequestLogID is the snowflake id minted for this request's RequestLog row.
	RequestLogID = "request_log_id"

	// ClientIP is the resolved caller IP, used for RequestLog.client_ip.
	ClientIP = "client_ip"
)
