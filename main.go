package main

import "example.com/auctionhouse/services/indexer/cmd"

func main() {
	cmd.Execute()
}
