// Package upload turns local audio files into remotely reachable URLs.
//
// Every supported file host implements Gateway. Hosts are listed by Hosts
// in menu order and built by key with New:
//
//	gw, err := upload.New("catbox", userHash, http.NewClient(5*time.Minute))
//	if err != nil {
//	    return err
//	}
//	if err := upload.CheckSize(gw, size); err != nil {
//	    // errors.Is(err, upload.ErrTooLarge): keep the file local
//	}
//	url, err := gw.Upload(ctx, data, "/music/Lofi/rain.mp3")
package upload
