// Package faq embeds the ad-policy FAQ assistant in a Go program.
//
// The client wires the same pipeline as the faqd server: chunk store,
// embedding provider with hash fallback, similarity search, the generation
// backend chain and source enrichment.
//
//	client, _ := faq.New(ctx,
//	    faq.WithRedis("localhost:6379", ""),
//	    faq.WithEmbeddingServer("http://localhost:8000", "bge-m3"),
//	    faq.WithBackend(myBackend, 20*time.Second),
//	)
//	defer client.Close()
//
//	_, _ = client.Index(ctx, faq.IndexRequest{Title: "광고 정책", Text: policyText})
//	ans := client.Ask(ctx, "광고 계정이 비활성화되었어요")
//	fmt.Println(ans.Answer, ans.Confidence)
//
// Ask never fails. Without any backend the answer is assembled from the
// retrieved excerpts.
package faq
