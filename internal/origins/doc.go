// Package origins holds the CORS allow-list: how origins are normalized,
// the immutable set they are matched against, and loading that set from
// configuration or an SSM parameter.
//
// Matching is exact after normalization. There is no wildcard or suffix
// matching; "http://sub.allowed.example" does not match "http://allowed.example".
package origins
