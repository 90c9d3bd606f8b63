// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound feed fetches.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
