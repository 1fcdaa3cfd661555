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

// Removes every sales fact an upload batch inserted. Used when a vendor
// sends a corrected file and the previous batch must go before the
// replacement is processed.
func main() {
	tenantID := flag.String("tenant-id", "", "Required: tenant id")
	uploadID := flag.Int("upload-id", 0, "Required: upload id whose batch to roll back")
	dryRun := flag.Bool("dry-run", true, "Show counts only (no writes)")
	confirm := flag.String("confirm", "", "Type ROLLBACK to proceed when dry-run=false")
	flag.Parse()

	if strings.TrimSpace(*tenantID) == "" {
		fmt.Fprintln(os.Stderr, "--tenant-id is required")
		os.Exit(1)
	}
	if *uploadID <= 0 {
		fmt.Fprintln(os.Stderr, "--upload-id is required")
		os.Exit(1)
	}
	if !*dryRun && strings.TrimSpace(*confirm) != "ROLLBACK" {
		fmt.Fprintln(os.Stderr, "set --confirm=ROLLBACK to proceed")
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

	count, err := models.CountSalesFactsByBatch(ctx, upload.BatchId)
	if err != nil {
		fmt.Fprintf(os.Stderr, "counting facts failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("upload %d (status=%s batch=%s) has %d facts\n", upload.ID, upload.Status, upload.BatchId, count)

	if *dryRun {
		fmt.Println("dry run, nothing deleted")
		return
	}

	deleted, err := models.DeleteSalesFactsByBatch(ctx, upload.BatchId)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rollback failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("deleted %d facts from batch %s\n", deleted, upload.BatchId)
}
