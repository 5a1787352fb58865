package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// bearer token on inbound requests.
const AccessTokenHeaderName = "access_token"

// AutoReviewSignerID is the reserved signer identity written on signatures
// produced by the auto-review path instead of a human reviewer.
const AutoReviewSignerID = "auto-review"

// AutoReviewRemark is the fixed remark stored on auto-review signatures.
const AutoReviewRemark = "Automatically signed: auto-review enabled for this category"
