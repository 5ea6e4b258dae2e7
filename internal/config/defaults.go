package config

// defaultPopularDomains is the reference set phishers most often
// impersonate. Roughly the top hundred targets across finance, tech,
// email, commerce, crypto, logistics, and developer infrastructure.
func defaultPopularDomains() []string {
	return []string{
		// Financial
		"paypal.com", "chase.com", "bankofamerica.com", "wellsfargo.com",
		"citibank.com", "capitalone.com", "americanexpress.com",
		"hsbc.com", "barclays.co.uk", "santander.com", "fidelity.com",
		"schwab.com", "vanguard.com", "venmo.com", "cash.app",
		"wise.com", "revolut.com", "stripe.com", "squareup.com",
		// Tech giants
		"google.com", "apple.com", "microsoft.com", "amazon.com",
		"facebook.com", "instagram.com", "twitter.com", "linkedin.com",
		"netflix.com", "spotify.com", "dropbox.com", "adobe.com",
		"zoom.us", "slack.com", "discord.com", "telegram.org",
		"whatsapp.com", "tiktok.com", "reddit.com", "youtube.com",
		"pinterest.com", "snapchat.com", "twitch.tv", "steam.com",
		// Email providers
		"gmail.com", "outlook.com", "yahoo.com", "protonmail.com",
		"proton.me", "aol.com", "icloud.com", "zoho.com", "mail.com",
		// E-commerce
		"ebay.com", "etsy.com", "shopify.com", "walmart.com",
		"target.com", "bestbuy.com", "costco.com", "aliexpress.com",
		"alibaba.com", "wish.com", "wayfair.com", "homedepot.com",
		// Crypto
		"coinbase.com", "binance.com", "kraken.com", "blockchain.com",
		"crypto.com", "gemini.com", "bitstamp.net", "metamask.io",
		// Government / logistics
		"irs.gov", "usps.com", "fedex.com", "ups.com", "dhl.com",
		"ssa.gov", "gov.uk", "canada.ca",
		// Cloud / dev
		"github.com", "gitlab.com", "docker.com", "cloudflare.com",
		"digitalocean.com", "heroku.com", "npmjs.com", "pypi.org",
		"bitbucket.org", "atlassian.com", "salesforce.com", "office.com",
		"live.com", "onedrive.com", "icann.org", "godaddy.com",
		"namecheap.com", "aws.amazon.com", "azure.com",
		// Travel / misc
		"booking.com", "airbnb.com", "uber.com", "lyft.com",
		"doordash.com", "instacart.com",
	}
}

// defaultSuspiciousTLDs lists free or high-abuse TLDs that carry a score
// penalty. The Freenom five lead; the rest show up constantly in
// phishing feeds because registration is cheap and unverified.
func defaultSuspiciousTLDs() []string {
	return []string{
		// Free TLDs (Freenom)
		"tk", "ml", "ga", "cf", "gq",
		// Other high-abuse
		"top", "xyz", "club", "work", "click", "link",
		"download", "stream", "online", "site", "website",
		"rest", "icu", "cam", "bar", "surf", "monster",
	}
}
