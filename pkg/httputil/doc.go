// Package httputil holds the HTTP plumbing shared by archive downloads.
//
// [Retry] and [RetryWithBackoff] re-run an operation with exponential
// backoff while it fails with a [RetryableError]. [CheckStatus] turns a
// response status into that vocabulary: 5xx responses are retryable, 404
// maps to [ErrNotFound] and everything else that is not a success fails
// at once.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(fmt.Errorf("%w: %v", httputil.ErrNetwork, err))
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckStatus(resp.StatusCode)
//	})
package httputil
