// Package resp writes the JSON bodies of the HTTP API.
//
// Successful responses carry the payload itself, or {"message": ...} when
// there is none. Failures carry the business code from ecode:
//
//	{
//	  "code": -422,
//	  "message": "render failed: out of memory",
//	  "errors": {...}
//	}
//
// Handlers usually pass errors straight through:
//
//	a, err := store.Read(ctx, id)
//	if err != nil {
//	    resp.Error(c.Writer, err)
//	    return
//	}
//	if a == nil {
//	    resp.Fail(c.Writer, resp.NotFound("asset not found"))
//	    return
//	}
//	resp.Success(c.Writer, a)
package resp
