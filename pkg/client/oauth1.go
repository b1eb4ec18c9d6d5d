package client

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// sign attaches an OAuth 1.0a HMAC-SHA1 Authorization header for a GET
// request with the given query parameters.
func (c *Client) sign(req *http.Request, query url.Values) {
	oauth := map[string]string{
		"oauth_consumer_key":     c.keys.ConsumerKey,
		"oauth_nonce":            c.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(c.now().Unix(), 10),
		"oauth_token":            c.keys.AccessToken,
		"oauth_version":          "1.0",
	}

	all := map[string]string{}
	for k, v := range oauth {
		all[k] = v
	}
	for k := range query {
		all[k] = query.Get(k)
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	paramParts := make([]string, 0, len(keys))
	for _, k := range keys {
		paramParts = append(paramParts, rfc3986(k)+"="+rfc3986(all[k]))
	}
	paramStr := strings.Join(paramParts, "&")

	baseURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	base := "GET&" + rfc3986(baseURL) + "&" + rfc3986(paramStr)
	signingKey := rfc3986(c.keys.ConsumerSecret) + "&" + rfc3986(c.keys.AccessTokenSecret)
	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(base))
	oauth["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	hdrKeys := make([]string, 0, len(oauth))
	for k := range oauth {
		hdrKeys = append(hdrKeys, k)
	}
	sort.Strings(hdrKeys)
	authParts := make([]string, 0, len(hdrKeys))
	for _, k := range hdrKeys {
		authParts = append(authParts, rfc3986(k)+`="`+rfc3986(oauth[k])+`"`)
	}
	req.Header.Set("Authorization", "OAuth "+strings.Join(authParts, ", "))
	req.Header.Set("Accept", "application/json")
}

// rfc3986 percent-encodes as RFC 5849 requires (stricter than
// url.QueryEscape about '+' and '*').
func rfc3986(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	return strings.ReplaceAll(e, "*", "%2A")
}

func randomNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
