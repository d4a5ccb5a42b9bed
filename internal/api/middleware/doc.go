/*
Package middleware provides the HTTP middleware shared by the ordering API.

# Request ID (requestid.go)

RequestIDMiddleware reuses a well-formed incoming X-Request-ID or generates a
UUID, stores it in the request context (GetRequestID) and echoes it in the
X-Request-ID response header. WithRequestID tags contexts that do not come
from HTTP, such as the terminal chat.

# Logging (logging.go)

LoggingMiddleware emits one structured slog record per request with method,
path, status and duration. Handlers enrich it with AddLogField and AddError;
the session handlers add session_id and intent this way.

# Timeout (timeout.go)

TimeoutMiddleware puts a deadline on the request context. Handlers and the
remote clients they call observe it cooperatively.
*/
package middleware
