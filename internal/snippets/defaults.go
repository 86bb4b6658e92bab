package snippets

// factory is the managed tier shipped with a fresh installation and restored
// by the resetDefaults admin action.
var factory = map[string]string{
	// 4B: Beneficiary Information
	";4bpcmt": "4B: Updated Postal Code using MT103",
	";4bpcgo": "4B: Updated Postal Code using Google",
	";4bstmt": "4B: Updated State using MT103",
	";4bstgo": "4B: Updated State using Google",

	// 5: BIC / FW
	";5fwds":  "5: Updated FW ABA# using DSS",
	";5bicsr": "5: Updated BIC using SwiftRef",
	";5bicnr": "5: Unable to locate BIC. Reassigned",

	// 7: Data Updates
	";7pcgo": "7: Updated Postal Code using Google",

	// 8B: Vostro
	";8btpv":  "8B: Enterprise Vostro Procedure Followed",
	";8bntpv": "8B: Non-Enterprise Vostro Procedure Followed",
}

// Defaults returns a fresh copy of the factory managed tier.
func Defaults() map[string]string {
	out := make(map[string]string, len(factory))
	for k, v := range factory {
		out[k] = v
	}
	return out
}
