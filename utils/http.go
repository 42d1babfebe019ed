// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound API clients that do not need their own transport.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
