package helper

import "github.com/cyder-hub/cyder-gateway/common/random"

// RequestIdKey is the gin context / response header key carrying the
// per-request trace id minted by middleware.RequestId.
const RequestIdKey = "X-Request-Id"

// GenRequestID mints a short, unique id to correlate one inbound request
// across logs, independent of the RequestLog id minted later by idgen.
func GenRequestID() string {
	return random.GetRandomString(8) + GetTimeString()
}
