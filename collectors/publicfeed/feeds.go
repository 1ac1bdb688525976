package publicfeed

// Feed is one public plaintext blocklist
type Feed struct {
	Name       string
	URL        string
	Category   string
	Reason     string
	Confidence int
}

// DefaultFeeds returns the built-in feed catalog. Confidence tracks each
// feed's false-positive record: DROP lists whole hijacked netblocks and
// almost never retracts, while blocklist.de relays unverified abuse
// reports. Catalog order is merge priority when feeds disagree on an
// address.
func DefaultFeeds() []Feed {
	return []Feed{
		{
			Name:       "spamhaus-drop",
			URL:        "https://www.spamhaus.org/drop/drop.txt",
			Category:   "hijacked-netblock",
			Reason:     "Spamhaus DROP listed netblock",
			Confidence: 95,
		},
		{
			Name:       "et-compromised",
			URL:        "https://rules.emergingthreats.net/blockrules/compromised-ips.txt",
			Category:   "compromised-host",
			Reason:     "Emerging Threats compromised host",
			Confidence: 85,
		},
		{
			Name:       "cins-badguys",
			URL:        "https://cinsscore.com/list/ci-badguys.txt",
			Category:   "scanner",
			Reason:     "CINS Army bad reputation host",
			Confidence: 80,
		},
		{
			Name:       "blocklist-de-all",
			URL:        "https://lists.blocklist.de/lists/all.txt",
			Category:   "attacker",
			Reason:     "Reported attacker (blocklist.de)",
			Confidence: 70,
		},
	}
}
