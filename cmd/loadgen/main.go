// Command loadgen fires concurrent order placements against a running server
// and reports how many succeeded. With equal quantities, the success count
// must equal floor(stock/qty) and the order numbers must stay gap-free.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	itemName := flag.String("item", "", "item name to create (default: random)")
	price := flag.Int("price", 100, "item price")
	stock := flag.Int("stock", 20, "initial stock via top-up")
	requests := flag.Int("requests", 50, "concurrent order placements")
	qty := flag.Int("qty", 1, "quantity per order")
	flag.Parse()

	name := *itemName
	if name == "" {
		// item names only allow letters and spaces
		name = "loadgen item " + letterSuffix(8)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	itemID, err := createItem(client, *baseURL, name, *price)
	if err != nil {
		log.Fatalf("create item: %v", err)
	}
	log.Printf("created item %d (%s)", itemID, name)

	if err := topUp(client, *baseURL, itemID, *stock); err != nil {
		log.Fatalf("top up: %v", err)
	}
	log.Printf("topped up stock: %d", *stock)

	var successCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := placeOrder(client, *baseURL, itemID, *qty); err != nil {
				failCount.Add(1)
				return
			}
			successCount.Add(1)
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	log.Printf("done in %s: %d succeeded, %d failed (expected %d successes)",
		elapsed, successCount.Load(), failCount.Load(), *stock / *qty)
}

func letterSuffix(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"

	out := make([]byte, n)
	for i, b := range uuid.New() {
		if i >= n {
			break
		}
		out[i] = letters[int(b)%len(letters)]
	}

	return string(out)
}

func createItem(client *http.Client, baseURL, name string, price int) (int64, error) {
	var resp struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}

	err := post(client, baseURL+"/items", map[string]any{"name": name, "price": price}, &resp)
	if err != nil {
		return 0, err
	}

	return resp.Data.ID, nil
}

func topUp(client *http.Client, baseURL string, itemID int64, qty int) error {
	return post(client, baseURL+"/inventory-transaction", map[string]any{
		"item_id": itemID,
		"qty":     qty,
		"type":    "T",
	}, nil)
}

func placeOrder(client *http.Client, baseURL string, itemID int64, qty int) error {
	return post(client, baseURL+"/orders", map[string]any{
		"item_id":    itemID,
		"qty":        qty,
		"request_id": uuid.NewString(),
	}, nil)
}

func post(client *http.Client, url string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return nil
}
