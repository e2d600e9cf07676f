// Package httputil provides HTTP helpers shared by the render service client.
//
// [Retry] re-runs an operation with exponential backoff when it fails with a
// [RetryableError]. [CheckStatus] maps HTTP status codes onto that scheme:
// 5xx and 429 responses are retryable, everything else is returned as is.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckStatus(resp.StatusCode)
//	})
package httputil
