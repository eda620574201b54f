package object

// CommitSigningPayload returns the canonical byte form of c that commit
// signatures cover. The signature field is cleared first, so verifying a
// stored commit recomputes exactly the bytes the signer saw.
func CommitSigningPayload(c *CommitObj) []byte {
	if c == nil {
		return nil
	}
	unsigned := *c
	unsigned.Signature = ""
	return MarshalCommit(&unsigned)
}
