// Package ecode defines the error codes shared by the asset, progress and
// lazy asset packages, and the Error type that carries them.
//
// Error codes follow the ncore numbering scheme:
//   - 0: Success (OK)
//   - -400 to -499: caller and resource errors
//   - -500+: server errors
//
// # Codes
//
//	ecode.InvalidArgument            // -401: numeric or shape violation, never retried
//	ecode.NotFound                   // -404: record or payload missing at wait time
//	ecode.ContentTypeUnknown         // -415: sniffing failed and no type was given
//	ecode.GenerationFailed           // -422: a progress record carries an error
//	ecode.UnlinkOfImmutableTempAsset // -423: temp assets cannot be deleted
//	ecode.Canceled                   // -499: the awaited progress was canceled
//	ecode.Timeout                    // -504: waiting exceeded the configured bound
//
// # Usage
//
//	if max <= 0 {
//	    return ecode.Errorf(ecode.InvalidArgument, "max %s", ecode.FieldIsInvalid())
//	}
//
//	if ecode.Is(err, ecode.GenerationFailed) {
//	    // err.Error() is the message recorded by the job
//	}
//
//	status := ecode.ToHTTPStatus(ecode.Code(err))
package ecode
