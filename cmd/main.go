// Bloodhound follows one path of links from a start page toward an
// objective, letting an LLM choose each next hop.
//
// Usage:
//
//	bloodhound serve
//	bloodhound crawl <url> --objective "..."
//	bloodhound fetch <url>
package main

func main() {
	Execute()
}
