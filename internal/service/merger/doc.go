// Package merger is the post-build workflow of fwmerge.
//
// After the application image is compiled it resolves the target metadata,
// runs `esptool merge_bin` over the bootloader, partition table and
// application at their flash offsets, names the result
// {chip}_{project}_{flash_size}_{timestamp}.bin and publishes it together
// with a "latest" alias into the project's firmware directory.
//
// A merge that produces no image is reported, not returned as an error.
// Failures to publish the copies are downgraded to warnings.
package merger
