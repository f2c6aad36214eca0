// Package api defines the wire types of the Kyosan HTTP API.
//
// Every error is returned in one envelope:
//
//	{
//	  "error": {
//	    "message": "user_input is required",
//	    "type": "invalid_request_error",
//	    "param": "user_input",
//	    "code": "missing_field"
//	  }
//	}
//
// Handlers live in api/handlers and the middleware chain in api/middleware.
package api
