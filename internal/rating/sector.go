// Package rating evaluates an ordered catalog of scoring rules against a
// normalized financial state plus filing signals and produces a bounded,
// tiered composite rating.
package rating

import "strings"

// Bucket is a coarse sector classification used to gate and tune rules.
type Bucket string

const (
	BucketBiotech    Bucket = "biotech"
	BucketTech       Bucket = "tech"
	BucketFinancial  Bucket = "financial"
	BucketEnergy     Bucket = "energy"
	BucketConsumer   Bucket = "consumer"
	BucketIndustrial Bucket = "industrial"
	BucketOther      Bucket = "other"
)

// sectorAliases maps lowercase substrings of raw sector strings to
// buckets. Checked in order; first hit wins.
var sectorAliases = []struct {
	substr string
	bucket Bucket
}{
	{"biotech", BucketBiotech},
	{"pharma", BucketBiotech},
	{"drug", BucketBiotech},
	{"life science", BucketBiotech},
	{"medical", BucketBiotech},
	{"software", BucketTech},
	{"internet", BucketTech},
	{"semiconductor", BucketTech},
	{"information technology", BucketTech},
	{"technology", BucketTech},
	{"communication services", BucketTech},
	{"bank", BucketFinancial},
	{"insurance", BucketFinancial},
	{"financial", BucketFinancial},
	{"capital market", BucketFinancial},
	{"real estate", BucketFinancial},
	{"reit", BucketFinancial},
	{"oil", BucketEnergy},
	{"gas", BucketEnergy},
	{"energy", BucketEnergy},
	{"mining", BucketEnergy},
	{"utilities", BucketEnergy},
	{"retail", BucketConsumer},
	{"consumer", BucketConsumer},
	{"food", BucketConsumer},
	{"beverage", BucketConsumer},
	{"industrial", BucketIndustrial},
	{"aerospace", BucketIndustrial},
	{"machinery", BucketIndustrial},
	{"transportation", BucketIndustrial},
}

// ClassifySector maps a raw sector string from the classifier collaborator
// to a bucket.
func ClassifySector(sector string) Bucket {
	s := strings.ToLower(strings.TrimSpace(sector))
	if s == "" {
		return BucketOther
	}
	for _, a := range sectorAliases {
		if strings.Contains(s, a.substr) {
			return a.bucket
		}
	}
	return BucketOther
}
