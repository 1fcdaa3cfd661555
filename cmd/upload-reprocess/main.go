package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
)

// Requeues a terminal upload for another pipeline run. With --rollback the
// previous batch is deleted first, so the reprocessed file starts from a
// clean slate instead of counting its own rows as duplicates.
func main() {
	tenantID := flag.String("tenant-id", "", "Required: tenant id")
	uploadID := flag.Int("upload-id", 0, "Required: upload id to reprocess")
	rollback := flag.Bool("rollback", false, "Delete the previous batch before requeueing")
	confirm := flag.String("confirm", "", "Type REPROCESS to proceed")
	flag.Parse()

	if strings.TrimSpace(*tenantID) == "" {
		fmt.Fprintln(os.Stderr, "--tenant-id is required")
		os.Exit(1)
	}
	if *uploadID <= 0 {
		fmt.Fprintln(os.Stderr, "--upload-id is required")
		os.Exit(1)
	}
	if strings.TrimSpace(*confirm) != "REPROCESS" {
		fmt.Fprintln(os.Stderr, "set --confirm=REPROCESS to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := utils.SetTenantIdInContext(context.Background(), *tenantID)

	upload, err := models.GetUpload(ctx, *uploadID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upload not found: %v\n", err)
		os.Exit(1)
	}
	if upload.TenantId != *tenantID {
		fmt.Fprintln(os.Stderr, "upload does not belong to this tenant")
		os.Exit(1)
	}
	if !upload.Status.IsTerminal() {
		fmt.Fprintf(os.Stderr, "upload is %s, only terminal uploads can be reprocessed\n", upload.Status)
		os.Exit(1)
	}

	if *rollback {
		deleted, err := models.DeleteSalesFactsByBatch(ctx, upload.BatchId)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rollback failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("deleted %d facts from batch %s\n", deleted, upload.BatchId)
	}

	if err := models.RequeueUpload(ctx, *uploadID); err != nil {
		fmt.Fprintf(os.Stderr, "requeue failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("upload %d requeued as pending\n", upload.ID)
}
