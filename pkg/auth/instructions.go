package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide writes instructions for obtaining an app-only bearer token
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "BEARER TOKEN GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "twscrape reads timelines and follower lists with an app-only bearer token.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Sign in to the developer portal at https://developer.twitter.com")
	fmt.Fprintln(w, "STEP 2: Open your project and select the app you want to use")
	fmt.Fprintln(w, "STEP 3: Under 'Keys and tokens', generate or regenerate the Bearer Token")
	fmt.Fprintln(w, "STEP 4: Paste it at the prompt below")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "TIPS:")
	fmt.Fprintln(w, "   • The token is shown once; store it somewhere safe")
	fmt.Fprintf(w, "   • CI and containers can set %s instead of logging in\n", TokenEnvVar)
	fmt.Fprintln(w, "   • Regenerating the token invalidates the old one")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
}
