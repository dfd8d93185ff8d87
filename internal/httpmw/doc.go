// Package httpmw provides the request pipeline for the public server.
//
// httpserver.NewHandler composes it outermost first:
//
//	SecurityHeaders > CloseWhenDraining > RequestContext > ResponseTimer >
//	Recover > otelhttp > TraceResponseHeaders > metrics > WithLogger >
//	chi router
//
// and inside the router, via Use so the matched route is visible:
//
//	Compress > AnnotateHTTPRoute > AccessLog > CORS > MaxBody > route
//
// RequestContext must run before ResponseTimer so the timer measures from
// the recorded start. Everything that can reject a request (Recover, CORS,
// body parsing, validation) sits inside the timer, so rejected responses
// still carry X-Request-Id and X-Response-Time-ms. Rejections are handed to
// a problem.Normalizer instead of being written inline.
//
// Request bodies, query strings and client-supplied headers are kept out of
// logs.
package httpmw
