// Command twscrape collects tweets and followers of Twitter users through
// the v1.1 REST API, waiting out rate limits as it goes.
package main

func main() {
	Execute()
}
